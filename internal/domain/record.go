package domain

// SyncRecord links a source event to its mirrored copy in the destination
// calendar. A record exists if and only if the engine believes the merged
// event exists; the destination is never queried to find out.
type SyncRecord struct {
	DestinationEventID string `json:"destinationEventId"`
	LastModified       string `json:"lastModified"` // opaque source stamp, byte-compared
}

// Mapping is the list form of a stored sync record, keyed back to its source.
type Mapping struct {
	SourceCalendarID string
	SourceEventID    string
	Record           SyncRecord
}
