package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Forsakenscan MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolSubmitTransaction = mcp.NewTool("submit_transaction",
	mcp.WithDescription(
		"Submit a financial transaction for fraud evaluation. "+
			"The transaction is checked against the user's history (spending limits, "+
			"velocity, account takeover signals, layering patterns) and committed with "+
			"its verdict. Returns the stored transaction including whether it was "+
			"flagged and why."),
	mcp.WithNumber("user_id",
		mcp.Required(),
		mcp.Description("Numeric id of the user making the transaction")),
	mcp.WithString("value",
		mcp.Required(),
		mcp.Description("Transaction amount as a decimal string (e.g. '1500.00')")),
	mcp.WithString("type",
		mcp.Required(),
		mcp.Description("Transaction type"),
		mcp.Enum("Compra", "Pagamento", "Transferência", "Saque", "PIX", "Cash-In", "Recebimento")),
	mcp.WithString("ip",
		mcp.Description("Submitting IP address, used for shared-IP velocity checks")),
)

var ToolListFrauds = mcp.NewTool("list_frauds",
	mcp.WithDescription(
		"List registered fraud records, newest first. "+
			"Each record has the flagged transaction id, the merged detection reasons, "+
			"and when it was detected."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of records to return (default 50)")),
)

var ToolGetFraud = mcp.NewTool("get_fraud",
	mcp.WithDescription(
		"Get the fraud record for a specific transaction id, including the full "+
			"list of detection reasons."),
	mcp.WithString("transaction_id",
		mcp.Required(),
		mcp.Description("The transaction id (e.g. 'tx_1a2b3c...')")),
)

var ToolListFlagged = mcp.NewTool("list_flagged_transactions",
	mcp.WithDescription(
		"List transactions flagged as suspicious, newest first, with their values, "+
			"types and detection reasons."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of transactions to return (default 50)")),
)

var ToolGetUserLimits = mcp.NewTool("get_user_limits",
	mcp.WithDescription(
		"Get a user's day (06:00-22:59) and night (23:00-05:59) spending limits. "+
			"Users without configured limits fall back to the defaults (10000 day, 5000 night)."),
	mcp.WithNumber("user_id",
		mcp.Required(),
		mcp.Description("Numeric id of the user")),
)

var ToolSetUserLimits = mcp.NewTool("set_user_limits",
	mcp.WithDescription(
		"Configure a user's day and night spending limits. Transactions pushing the "+
			"shift total above the limit are flagged and the attempt is recorded."),
	mcp.WithNumber("user_id",
		mcp.Required(),
		mcp.Description("Numeric id of the user")),
	mcp.WithString("day_limit",
		mcp.Required(),
		mcp.Description("Day shift limit as a decimal string (e.g. '10000.00')")),
	mcp.WithString("night_limit",
		mcp.Required(),
		mcp.Description("Night shift limit as a decimal string (e.g. '5000.00')")),
)

var ToolListLimitAttempts = mcp.NewTool("list_limit_attempts",
	mcp.WithDescription(
		"List a user's shift-limit breach attempts, newest first. Shows the "+
			"attempted total, the limit in force and the shift."),
	mcp.WithNumber("user_id",
		mcp.Required(),
		mcp.Description("Numeric id of the user")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of attempts to return (default 50)")),
)
