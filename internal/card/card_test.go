package card

import (
	"strings"
	"testing"
	"time"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
		ok   bool
	}{
		{"Lab Report", TypeLabReport, true},
		{"  lab   report ", TypeLabReport, true},
		{"QUIZ", TypeQuiz, true},
		{"session summary", TypeSessionSummary, true},
		{"Essay", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseSubject(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"AP Biology", SubjectBiology, true},
		{"ap  biology", SubjectBiology, true},
		{"core math", SubjectCoreMath, true},
		{"Biology", "", false},
		{"AP Calculus AB", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSubject(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSubject(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInferSubject(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"Biology lab report due Friday", SubjectBiology, true},
		{"algebra worksheet tomorrow", SubjectCoreMath, true},
		{"Essay on The Great Gatsby", SubjectAmericanLit, true},
		{"science fair poster", SubjectBiology, true},
		{"clean my room", "", false},
	}
	for _, tt := range tests {
		got, ok := InferSubject(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("InferSubject(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		text string
		want Type
		ok   bool
	}{
		{"Biology lab report due Friday", TypeLabReport, true},
		{"math quiz on Monday", TypeQuiz, true},
		{"chapter 4 exam", TypeTest, true},
		{"group project for english", TypeProject, true},
		{"math hw", TypeHomework, true},
		{"write the session summary", TypeSessionSummary, true},
		{"something vague", "", false},
	}
	for _, tt := range tests {
		got, ok := InferType(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("InferType(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDefaultTitle(t *testing.T) {
	if got := DefaultTitle(SubjectBiology, TypeLabReport); got != "Biology Lab Report" {
		t.Errorf("DefaultTitle = %q, want %q", got, "Biology Lab Report")
	}
	if got := DefaultTitle(SubjectCoreMath, TypeHomework); got != "Math Homework" {
		t.Errorf("DefaultTitle = %q, want %q", got, "Math Homework")
	}
}

func TestInputValidate(t *testing.T) {
	due := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)

	valid := Input{Title: "Cell diagram", Type: TypeLabReport, DueDate: due, Subject: SubjectBiology}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() on valid input: %v", err)
	}

	tests := []struct {
		name    string
		input   Input
		wantMsg string
	}{
		{"missing title", Input{Type: TypeQuiz, DueDate: due, Subject: SubjectCoreMath}, "title is required"},
		{"missing due date", Input{Title: "x", Type: TypeQuiz, Subject: SubjectCoreMath}, "dueDate is required"},
		{"unknown subject", Input{Title: "x", Type: TypeQuiz, DueDate: due, Subject: "Chemistry"}, "subject must be one of"},
		{"unknown type", Input{Title: "x", Type: "Poster", DueDate: due, Subject: SubjectCoreMath}, "type must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestClone_DeepCopies(t *testing.T) {
	score := "0/4"
	orig := Card{ID: "a", Tags: []string{"Homework"}, Score: &score}
	cp := orig.Clone()
	cp.Tags[0] = "changed"
	*cp.Score = "4/4"

	if orig.Tags[0] != "Homework" {
		t.Error("Clone shared the tags slice")
	}
	if *orig.Score != "0/4" {
		t.Error("Clone shared the score pointer")
	}
}
