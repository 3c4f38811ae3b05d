package service

import "github.com/sitegate/notify-api/internal/model"

// BuildRetryRequest turns a finished job's failure list into a fresh batch
// submission containing only the failed recipients. The result goes through
// CreateBatch like any other request and gets a brand-new job; there is no
// identity continuity with the original beyond the caller's bookkeeping.
func BuildRetryRequest(original *model.CreateBatchRequest, errs []model.JobError) *model.CreateBatchRequest {
	recipients := make([]string, 0, len(errs))
	seen := make(map[string]struct{}, len(errs))
	for _, e := range errs {
		if _, ok := seen[e.Recipient]; ok {
			continue
		}
		seen[e.Recipient] = struct{}{}
		recipients = append(recipients, e.Recipient)
	}

	return &model.CreateBatchRequest{
		Channel:    original.Channel,
		Recipients: recipients,
		Template:   original.Template,
		Language:   original.Language,
	}
}
