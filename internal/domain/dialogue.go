package domain

// Speaker identifies which side of a chat screenshot a line came from.
type Speaker string

const (
	SpeakerLeft    Speaker = "left"    // the other party
	SpeakerRight   Speaker = "right"   // the screenshot owner
	SpeakerMiddle  Speaker = "middle"  // timestamps and system messages
	SpeakerUnknown Speaker = "unknown" // block geometry could not be classified
)

// Turn is one speaker-attributed line of the reconstructed dialogue.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}
