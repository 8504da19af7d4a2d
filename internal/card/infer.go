package card

import "strings"

// subjectKeywords maps each column to the words that suggest it.
var subjectKeywords = []struct {
	subject  string
	keywords []string
}{
	{SubjectCoreMath, []string{"math", "maths", "algebra", "geometry", "calculus", "equation", "equations", "trig", "trigonometry", "statistics", "fractions"}},
	{SubjectAmericanLit, []string{"literature", "lit", "english", "writing", "essay", "novel", "poem", "poetry", "reading", "gatsby"}},
	{SubjectBiology, []string{"biology", "bio", "science", "cell", "cells", "lab", "dna", "ecology", "genetics", "photosynthesis"}},
}

// InferSubject guesses the column from keywords in free text.
// Returns false when nothing matches.
func InferSubject(text string) (string, bool) {
	toks := words(text)
	for _, entry := range subjectKeywords {
		for _, kw := range entry.keywords {
			for _, tok := range toks {
				if tok == kw {
					return entry.subject, true
				}
			}
		}
	}
	return "", false
}

// typePhrases is checked in order; multi-word phrases come first so
// "lab report" beats "report" and "session summary" beats "summary".
var typePhrases = []struct {
	phrase string
	typ    Type
}{
	{"lab report", TypeLabReport},
	{"session summary", TypeSessionSummary},
	{"lab", TypeLabReport},
	{"quiz", TypeQuiz},
	{"test", TypeTest},
	{"exam", TypeTest},
	{"midterm", TypeTest},
	{"project", TypeProject},
	{"homework", TypeHomework},
	{"hw", TypeHomework},
	{"worksheet", TypeHomework},
	{"assignment", TypeAssignment},
	{"essay", TypeAssignment},
}

// InferType guesses the card type from phrases in free text.
// Returns false when nothing matches.
func InferType(text string) (Type, bool) {
	padded := " " + strings.Join(words(text), " ") + " "
	for _, p := range typePhrases {
		if strings.Contains(padded, " "+p.phrase+" ") {
			return p.typ, true
		}
	}
	return "", false
}
