package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sitegate/notify-api/internal/model"
	"github.com/sitegate/notify-api/internal/service"
)

func TestBuildRetryRequestKeepsOnlyFailedRecipients(t *testing.T) {
	original := &model.CreateBatchRequest{
		Channel:    "email",
		Recipients: []string{"a", "b", "c", "d"},
		Template:   model.CredentialTemplate{Account: "acct", Password: "pw"},
		Language:   "en-US",
	}
	errs := []model.JobError{
		{Recipient: "a", Message: "mailbox full"},
		{Recipient: "b", Message: "timeout"},
	}

	retry := service.BuildRetryRequest(original, errs)
	assert.Equal(t, []string{"a", "b"}, retry.Recipients)
	assert.Equal(t, original.Channel, retry.Channel)
	assert.Equal(t, original.Template, retry.Template)
	assert.Equal(t, original.Language, retry.Language)

	// A fresh submission, not a mutation of the original.
	assert.Len(t, original.Recipients, 4)
}

func TestBuildRetryRequestDeduplicates(t *testing.T) {
	original := &model.CreateBatchRequest{Channel: "whatsapp"}
	errs := []model.JobError{
		{Recipient: "a", Message: "first"},
		{Recipient: "a", Message: "second"},
	}
	retry := service.BuildRetryRequest(original, errs)
	assert.Equal(t, []string{"a"}, retry.Recipients)
}

func TestBuildRetryRequestEmptyErrors(t *testing.T) {
	retry := service.BuildRetryRequest(&model.CreateBatchRequest{Channel: "email"}, nil)
	assert.Empty(t, retry.Recipients)
}
