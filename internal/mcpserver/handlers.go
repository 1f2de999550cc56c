package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *FraudClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *FraudClient) *Handlers {
	return &Handlers{client: client}
}

// HandleSubmitTransaction submits a transaction for evaluation.
func (h *Handlers) HandleSubmitTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := int64(req.GetFloat("user_id", 0))
	if userID <= 0 {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	value := req.GetString("value", "")
	if value == "" {
		return mcp.NewToolResultError("value is required"), nil
	}
	txType := req.GetString("type", "")
	if txType == "" {
		return mcp.NewToolResultError("type is required"), nil
	}
	ip := req.GetString("ip", "")

	raw, err := h.client.SubmitTransaction(ctx, userID, value, txType, ip)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to submit transaction: %v", err)), nil
	}

	text, err := formatTransactionResult(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse response: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleListFrauds lists registered fraud records.
func (h *Handlers) HandleListFrauds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(req.GetFloat("limit", 0))

	raw, err := h.client.ListFrauds(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list frauds: %v", err)), nil
	}

	text, err := formatFraudList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse response: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGetFraud fetches a single fraud record.
func (h *Handlers) HandleGetFraud(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transactionID := req.GetString("transaction_id", "")
	if transactionID == "" {
		return mcp.NewToolResultError("transaction_id is required"), nil
	}

	raw, err := h.client.GetFraud(ctx, transactionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get fraud record: %v", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(raw)), nil
}

// HandleListFlagged lists suspicious transactions.
func (h *Handlers) HandleListFlagged(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(req.GetFloat("limit", 0))

	raw, err := h.client.ListFlagged(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list flagged transactions: %v", err)), nil
	}

	text, err := formatFlaggedList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse response: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGetUserLimits fetches a user's limits.
func (h *Handlers) HandleGetUserLimits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := int64(req.GetFloat("user_id", 0))
	if userID <= 0 {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	raw, err := h.client.GetUserLimits(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get user limits: %v", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(raw)), nil
}

// HandleSetUserLimits configures a user's limits.
func (h *Handlers) HandleSetUserLimits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := int64(req.GetFloat("user_id", 0))
	if userID <= 0 {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	dayLimit := req.GetString("day_limit", "")
	nightLimit := req.GetString("night_limit", "")
	if dayLimit == "" || nightLimit == "" {
		return mcp.NewToolResultError("day_limit and night_limit are required"), nil
	}

	raw, err := h.client.SetUserLimits(ctx, userID, dayLimit, nightLimit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to set user limits: %v", err)), nil
	}

	return mcp.NewToolResultText("Limits updated.\n\n" + formatJSON(raw)), nil
}

// HandleListLimitAttempts lists a user's limit breach attempts.
func (h *Handlers) HandleListLimitAttempts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := int64(req.GetFloat("user_id", 0))
	if userID <= 0 {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	limit := int(req.GetFloat("limit", 0))

	raw, err := h.client.ListLimitAttempts(ctx, userID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list limit attempts: %v", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(raw)), nil
}

// -----------------------------------------------------------------------------
// Formatting helpers
// -----------------------------------------------------------------------------

type transactionResponse struct {
	Transaction struct {
		ID         string `json:"id"`
		UserID     int64  `json:"userId"`
		Type       string `json:"type"`
		Value      string `json:"value"`
		Suspicious bool   `json:"suspicious"`
		Reasons    string `json:"reasons"`
	} `json:"transaction"`
}

func formatTransactionResult(raw json.RawMessage) (string, error) {
	var resp transactionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	tx := resp.Transaction

	var sb strings.Builder
	fmt.Fprintf(&sb, "Transaction %s committed.\n", tx.ID)
	fmt.Fprintf(&sb, "User: %d\nType: %s\nValue: %s\n", tx.UserID, tx.Type, tx.Value)
	if tx.Suspicious {
		fmt.Fprintf(&sb, "Verdict: SUSPICIOUS\nReasons: %s\n", tx.Reasons)
	} else {
		sb.WriteString("Verdict: clean\n")
	}
	return sb.String(), nil
}

type fraudListResponse struct {
	Frauds []struct {
		TransactionID string `json:"transactionId"`
		Reasons       string `json:"reasons"`
		DetectedAt    string `json:"detectedAt"`
	} `json:"frauds"`
	Count int `json:"count"`
}

func formatFraudList(raw json.RawMessage) (string, error) {
	var resp fraudListResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if resp.Count == 0 {
		return "No fraud records registered.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d fraud record(s):\n\n", resp.Count)
	for _, f := range resp.Frauds {
		fmt.Fprintf(&sb, "- %s (%s)\n  %s\n", f.TransactionID, f.DetectedAt, f.Reasons)
	}
	return sb.String(), nil
}

type flaggedListResponse struct {
	Transactions []struct {
		ID      string `json:"id"`
		UserID  int64  `json:"userId"`
		Type    string `json:"type"`
		Value   string `json:"value"`
		Reasons string `json:"reasons"`
	} `json:"transactions"`
	Count int `json:"count"`
}

func formatFlaggedList(raw json.RawMessage) (string, error) {
	var resp flaggedListResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if resp.Count == 0 {
		return "No flagged transactions.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d flagged transaction(s):\n\n", resp.Count)
	for _, tx := range resp.Transactions {
		fmt.Fprintf(&sb, "- %s user=%d %s %s\n  %s\n", tx.ID, tx.UserID, tx.Type, tx.Value, tx.Reasons)
	}
	return sb.String(), nil
}

// formatJSON pretty-prints raw JSON for display.
func formatJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
