package model

// Settings is the small boolean configuration operators toggle from the
// admin screen.  It is read once per session into the settings cache and
// mutated only by an explicit save or by the admission controller flipping
// ReceptionOpen to false.  The system never reopens reception on its own.
type Settings struct {
	ReceptionOpen   bool `json:"reception_open"`    // new reservation intake enabled
	ShowStatus      bool `json:"show_status"`       // public status display toggle
	AutoStopEnabled bool `json:"auto_stop_enabled"` // admission controller may close reception
}
