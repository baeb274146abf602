package models

// Capture is a raw snapshot as received by a collector, with a summary of
// its decoded content.
type Capture struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	ReceivedAt int64  `json:"received_at"`
	Size       int    `json:"size"`
	CRC        uint32 `json:"crc"`
	Objects    int    `json:"objects"`
	Mismatches int    `json:"mismatches"`
	Data       []byte `json:"data,omitempty"`
}

// CRCFrame is one per-frame checksum log of a recorded session.
type CRCFrame struct {
	Session string `json:"session"`
	Frame   uint32 `json:"frame"`
	CRC     uint32 `json:"crc"`
	Log     []byte `json:"log,omitempty"`
}
