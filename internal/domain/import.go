package domain

// ImportMode is listmonk's import mode token. Each mode is one bucket of a run.
type ImportMode string

const (
	ModeSubscribe ImportMode = "subscribe"
	ModeBlocklist ImportMode = "blocklist"
)

// Buckets lists the import modes in the order they are uploaded.
var Buckets = []ImportMode{ModeSubscribe, ModeBlocklist}

// SubscriptionStatus is the status listmonk assigns to imported subscribers.
type SubscriptionStatus string

const (
	StatusConfirmed   SubscriptionStatus = "confirmed"
	StatusUnconfirmed SubscriptionStatus = "unconfirmed"
)

// CSVDelimiter is the field delimiter announced to listmonk and used by the encoder.
const CSVDelimiter = ","
