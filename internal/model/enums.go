package model

// Job status
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Notification channels
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

var ValidChannels = []Channel{ChannelEmail, ChannelWhatsApp}

// Message languages
type Language string

const (
	LanguageZhTW Language = "zh-TW"
	LanguageZhCN Language = "zh-CN"
	LanguageEnUS Language = "en-US"
)

var ValidLanguages = []Language{LanguageZhTW, LanguageZhCN, LanguageEnUS}

const DefaultLanguage = LanguageZhTW

// NormalizeLanguage maps a request language tag onto the supported set,
// falling back to the default for absent or unknown values.
func NormalizeLanguage(tag string) Language {
	for _, l := range ValidLanguages {
		if string(l) == tag {
			return l
		}
	}
	return DefaultLanguage
}
