// Command routegen-vet reports routegen handler registrations that are
// served by reflection instead of generated code.
//
//	go vet -vettool=$(which routegen-vet) ./...
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/broady/routegen/analyzer"
)

func main() { singlechecker.Main(analyzer.Analyzer) }
