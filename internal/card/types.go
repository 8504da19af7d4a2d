package card

import "strings"

// Type is the kind of work a card represents.
type Type string

const (
	TypeAssignment     Type = "Assignment"
	TypeHomework       Type = "Homework"
	TypeTest           Type = "Test"
	TypeQuiz           Type = "Quiz"
	TypeProject        Type = "Project"
	TypeLabReport      Type = "Lab Report"
	TypeSessionSummary Type = "Session Summary"
)

// Types lists every card type in display order.
var Types = []Type{
	TypeAssignment,
	TypeHomework,
	TypeTest,
	TypeQuiz,
	TypeProject,
	TypeLabReport,
	TypeSessionSummary,
}

// Subject column names.
const (
	SubjectCoreMath    = "Core Math"
	SubjectAmericanLit = "AP American Literature"
	SubjectBiology     = "AP Biology"
)

// Subjects is the fixed column set, in initial display order.
var Subjects = []string{
	SubjectCoreMath,
	SubjectAmericanLit,
	SubjectBiology,
}

// ParseType matches s against the known types ignoring case and spacing.
func ParseType(s string) (Type, bool) {
	norm := Normalize(s)
	for _, t := range Types {
		if Normalize(string(t)) == norm {
			return t, true
		}
	}
	return "", false
}

// ParseSubject matches s against the column set ignoring case and spacing.
func ParseSubject(s string) (string, bool) {
	norm := Normalize(s)
	for _, subj := range Subjects {
		if Normalize(subj) == norm {
			return subj, true
		}
	}
	return "", false
}

// ShortSubject drops the course-level prefix: "AP Biology" → "Biology".
func ShortSubject(subject string) string {
	for _, prefix := range []string{"AP ", "Core "} {
		if rest, ok := strings.CutPrefix(subject, prefix); ok {
			return rest
		}
	}
	return subject
}

// DefaultTitle generates a title for a card the user did not name.
func DefaultTitle(subject string, t Type) string {
	return ShortSubject(subject) + " " + string(t)
}
