package card

import "time"

// Card is one assignment record displayed in a subject column.
type Card struct {
	// ID is a ULID assigned when the card is added to the board
	ID string `json:"id"`

	Title string `json:"title"`

	Type Type `json:"type"`

	// DueDate is the calendar date the card is due; time of day is kept
	// from whatever produced it but queries compare whole days
	DueDate time.Time `json:"dueDate"`

	// Subject is the column the card lives in
	Subject string `json:"subject"`

	// Tags may repeat the type (cards created from chat are seeded with it)
	Tags []string `json:"tags,omitempty"`

	// Score is a display-only grade such as "0/4"
	Score *string `json:"score,omitempty"`

	// IsDue marks a card the instructor flagged as due
	IsDue *bool `json:"isDue,omitempty"`

	// IsNewCard is transient: set on creation, cleared after the highlight delay
	IsNewCard bool `json:"isNewCard,omitempty"`
}

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	out := c
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	if c.Score != nil {
		s := *c.Score
		out.Score = &s
	}
	if c.IsDue != nil {
		b := *c.IsDue
		out.IsDue = &b
	}
	return out
}

// Input contains the fields supplied when creating a card, either from the
// manual add-card form or from the task extractor.
type Input struct {
	Title   string    `json:"title" validate:"required"`
	Type    Type      `json:"type" validate:"required,cardtype"`
	DueDate time.Time `json:"dueDate" validate:"required"`
	Subject string    `json:"subject" validate:"required,subject"`
	Tags    []string  `json:"tags,omitempty"`
	Score   *string   `json:"score,omitempty"`
	IsDue   *bool     `json:"isDue,omitempty"`
}
