package analyzer

import (
	"testing"

	"golang.org/x/tools/go/analysis/analysistest"
)

func TestAnalyzer(t *testing.T) {
	analysistest.Run(t, analysistest.TestData(), Analyzer, "a")
}

func TestAnalyzerReflective(t *testing.T) {
	if err := Analyzer.Flags.Set("reflective", "true"); err != nil {
		t.Fatal(err)
	}
	defer Analyzer.Flags.Set("reflective", "false")
	analysistest.Run(t, analysistest.TestData(), Analyzer, "b")
}
