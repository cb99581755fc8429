package analyze

import (
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/brainmri/tumorscan/internal/detect"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

var testLabels = detect.LabelTable{0: "Glioma", 1: "Meningioma", 2: "Pituitary", 3: "Tumor"}

func det(classID int, conf float64) detect.Detection {
	return detect.Detection{
		Box:        detect.Box{X1: 0, Y1: 0, X2: 10, Y2: 10},
		ClassID:    classID,
		Confidence: conf,
	}
}

func TestAggregate(t *testing.T) {
	a := New(testLabels, quietLogger())

	findings, skipped := a.Aggregate([]detect.Detection{
		det(1, 0.8734),
		det(0, 0.60),
		det(1, 0.55),
	})
	if skipped != 0 {
		t.Errorf("skipped: got %d, want 0", skipped)
	}

	want := []Finding{
		{Category: "glioma", Confidence: 0.60},
		{Category: "meningioma", Confidence: 0.8734},
	}
	if !reflect.DeepEqual(findings, want) {
		t.Errorf("findings: got %+v, want %+v", findings, want)
	}
}

func TestAggregate_PermutationInvariant(t *testing.T) {
	a := New(testLabels, quietLogger())

	dets := []detect.Detection{det(0, 0.9), det(1, 0.7), det(2, 0.5), det(0, 0.4)}
	perms := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{1, 3, 0, 2},
		{2, 0, 3, 1},
	}

	var first []Finding
	for _, p := range perms {
		ordered := make([]detect.Detection, len(p))
		for i, idx := range p {
			ordered[i] = dets[idx]
		}
		findings, _ := a.Aggregate(ordered)
		if first == nil {
			first = findings
			continue
		}
		if !reflect.DeepEqual(findings, first) {
			t.Errorf("permutation %v: got %+v, want %+v", p, findings, first)
		}
	}
}

func TestAggregate_CaseAndWhitespaceCollapse(t *testing.T) {
	labels := detect.LabelTable{0: "Glioma", 1: "glioma ", 2: "GLIOMA"}
	a := New(labels, quietLogger())

	findings, _ := a.Aggregate([]detect.Detection{det(0, 0.5), det(1, 0.6), det(2, 0.4)})
	if len(findings) != 1 {
		t.Fatalf("findings: got %d, want 1", len(findings))
	}
	if findings[0].Category != "glioma" {
		t.Errorf("category: got %q, want glioma", findings[0].Category)
	}
	if findings[0].Confidence != 0.6 {
		t.Errorf("confidence: got %v, want max 0.6", findings[0].Confidence)
	}
}

func TestAggregate_UnknownClassSkipped(t *testing.T) {
	a := New(testLabels, quietLogger())

	findings, skipped := a.Aggregate([]detect.Detection{
		det(0, 0.7),
		det(99, 0.9), // outside the table
		det(1, 0.6),
	})
	if skipped != 1 {
		t.Errorf("skipped: got %d, want 1", skipped)
	}
	if len(findings) != 2 {
		t.Errorf("findings: got %d, want 2 (unknown id must not discard the rest)", len(findings))
	}
}

func TestAggregate_Empty(t *testing.T) {
	a := New(testLabels, quietLogger())

	findings, skipped := a.Aggregate(nil)
	if len(findings) != 0 || skipped != 0 {
		t.Errorf("got %d findings, %d skipped; want 0, 0", len(findings), skipped)
	}
}

func TestAggregate_ZeroConfidenceCategoryKept(t *testing.T) {
	a := New(testLabels, quietLogger())

	findings, _ := a.Aggregate([]detect.Detection{det(3, 0)})
	if len(findings) != 1 || findings[0].Category != "tumor" {
		t.Errorf("got %+v, want a single tumor finding", findings)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Glioma", "glioma"},
		{" glioma ", "glioma"},
		{"GLIOMA", "glioma"},
		{"glioma", "glioma"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
		// Idempotence.
		if got := Normalize(Normalize(tt.in)); got != tt.want {
			t.Errorf("Normalize not idempotent for %q", tt.in)
		}
	}
}

func TestResolve_Unknown(t *testing.T) {
	if _, err := Resolve(42, testLabels); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("got %v, want ErrUnknownCategory", err)
	}
}
