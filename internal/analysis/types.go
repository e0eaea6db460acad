package analysis

import (
	"context"
	"time"

	"github.com/wambo-ai/wambo/internal/history"
)

// InboundMessage is one customer message entering the pipeline. Immutable
// once received.
type InboundMessage struct {
	TenantID       string
	ConversationID string
	SenderRef      string
	Text           string
	Timestamp      time.Time
}

// Intent is the classified purpose of a message.
type Intent struct {
	Primary    string
	Secondary  string
	Confidence string
	Scores     map[string]int
}

// Confidence buckets for the winning intent score.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// StockStatus classifies availability of a matched product at analysis time.
type StockStatus string

const (
	StockAvailable    StockStatus = "available"
	StockLow          StockStatus = "low"
	StockInsufficient StockStatus = "insufficient"
	StockOut          StockStatus = "out_of_stock"
)

// MatchSource records where a product reference was found.
type MatchSource string

const (
	MatchFromMessage MatchSource = "message"
	MatchFromContext MatchSource = "context"
)

// ProductMatch is a catalog product resolved from the message or its
// context. Stock is a snapshot; re-check before committing an order.
type ProductMatch struct {
	ID                string
	Name              string
	SKU               string
	PriceCents        int64
	Stock             int
	RequestedQuantity int
	StockStatus       StockStatus
	MatchedFrom       MatchSource
}

// StockIssue flags a matched product whose stock cannot cover the request.
type StockIssue struct {
	Type        string
	ProductID   string
	ProductName string
	Message     string
}

// Stock issue types.
const (
	IssueOutOfStock   = "out_of_stock"
	IssueInsufficient = "insufficient_stock"
	IssueLowStock     = "low_stock"
)

// ProductFindings groups the product-resolution output.
type ProductFindings struct {
	Matched        []ProductMatch
	StockIssues    []StockIssue
	TotalRequested int
}

// DeliveryInfo holds delivery fields already captured from the message.
type DeliveryInfo struct {
	City         string
	Neighborhood string
	Phone        string
}

// CustomerHistory aggregates the customer's prior activity in this
// conversation. Nil when no conversation reference was supplied.
type CustomerHistory struct {
	TotalOrders     int
	ValidatedOrders int
	PendingOrders   int
	LifetimeSpend   int64
	MessageCount    int
	Engagement      string
}

// Engagement levels by message-count thresholds.
const (
	EngagementHigh   = "high"
	EngagementMedium = "medium"
	EngagementLow    = "low"
)

// HandoffAdvice recommends, with reasons, that a human take over.
type HandoffAdvice struct {
	Needed  bool
	Reasons []string
}

// RiskLevel flags messages the security pass considers dangerous.
type RiskLevel string

const (
	RiskLow  RiskLevel = "low"
	RiskHigh RiskLevel = "high"
)

// AnalysisResult is the immutable output of one analysis pass.
type AnalysisResult struct {
	Intent          Intent
	Products        ProductFindings
	CustomerHistory *CustomerHistory
	Delivery        DeliveryInfo
	Quantities      []int
	IsLikelyOrder   bool
	IsConfirmation  bool
	NeedsHuman      HandoffAdvice
	Ignore          bool
	Escalate        bool
	RiskLevel       RiskLevel
	Language        string
	Timestamp       time.Time
}

// ConversationReader is the history accessor the analyzer consumes.
type ConversationReader interface {
	RecentTurns(ctx context.Context, conversationID string, limit int) ([]string, error)
	CustomerOrderSummary(ctx context.Context, tenantID, conversationID string) (history.OrderSummary, error)
}
