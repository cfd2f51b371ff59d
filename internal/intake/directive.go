package intake

import "time"

// Reply names a user-facing message. Rendering to text is the transport's job.
type Reply string

const (
	ReplyGreeting        Reply = "greeting"
	ReplyRequestLocation Reply = "request_location"
	ReplySinglePhotoOnly Reply = "single_photo_only"
	ReplyNotPhoto        Reply = "not_photo"
	ReplyNotLocation     Reply = "not_location"
	ReplyStartFirst      Reply = "start_first"
	ReplyThanks          Reply = "thanks"
	ReplyAnotherPhoto    Reply = "another_photo"
	ReplyDownloadFailed  Reply = "download_failed"
	ReplyWriteFailed     Reply = "write_failed"
)

// Directive describes a side effect for an output collaborator.
type Directive interface {
	directive()
}

// SendReply asks the transport to send a message to the user's chat.
type SendReply struct {
	ChatID int64
	Reply  Reply
	// Name is the user's display name for replies that address the user.
	Name string
}

// ScheduleDownload asks the download collaborator to fetch a photo.
type ScheduleDownload struct {
	UserID   int64
	AssetRef string
}

// ScheduleRecordWrite asks the storage collaborator to append a pairing record.
type ScheduleRecordWrite struct {
	Record Record
}

func (SendReply) directive() {}
func (ScheduleDownload) directive() {}
func (ScheduleRecordWrite) directive() {}

// Record is one completed photo/location pairing.
type Record struct {
	UserID        int64
	DisplayName   string
	LocalPhotoRef string
	Latitude      float64
	Longitude     float64
	Timestamp     time.Time
}
