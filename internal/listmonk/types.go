package listmonk

import "github.com/ignite/square-listmonk-sync/internal/domain"

// ImportPath is listmonk's bulk subscriber import endpoint.
const ImportPath = "/api/import/subscribers"

// ImportParams is the JSON "params" part of an import request.
type ImportParams struct {
	Mode               domain.ImportMode         `json:"mode"`
	Delim              string                    `json:"delim"`
	SubscriptionStatus domain.SubscriptionStatus `json:"subscription_status"`
	Lists              []int                     `json:"lists"`
	Overwrite          bool                      `json:"overwrite"`
}

// ImportBatch is one bucket's subscribers together with its import params.
type ImportBatch struct {
	Params      ImportParams
	Subscribers []domain.Subscriber
}

// NewImportBatch builds the batch for one bucket. Lists is copied so the
// batch never aliases the caller's config.
func NewImportBatch(mode domain.ImportMode, status domain.SubscriptionStatus, lists []int, overwrite bool, subs []domain.Subscriber) ImportBatch {
	ids := make([]int, len(lists))
	copy(ids, lists)
	return ImportBatch{
		Params: ImportParams{
			Mode:               mode,
			Delim:              domain.CSVDelimiter,
			SubscriptionStatus: status,
			Lists:              ids,
			Overwrite:          overwrite,
		},
		Subscribers: subs,
	}
}
