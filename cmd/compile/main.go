// Command compile turns a script file into scenes and choices and
// prints the full diagnostic report. Exit code 1 means the script has
// hard errors and cannot be published.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/chatstory/engine/internal/script"
	"github.com/chatstory/engine/internal/version"
)

func main() {
	scriptPath := flag.String("script", "", "path to the script file")
	asJSON := flag.Bool("json", false, "print the full compile result as JSON")
	flag.Parse()

	if *scriptPath == "" {
		log.Fatal("usage: compile -script <file> [-json]")
	}

	source, err := os.ReadFile(*scriptPath)
	if err != nil {
		log.Fatalf("failed to read script: %v", err)
	}

	res := script.Compile(string(source))
	issues := script.Validate(res)

	if *asJSON {
		out := struct {
			*script.CompileResult
			Issues []script.Issue `json:"issues"`
		}{res, issues}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Fatalf("failed to encode result: %v", err)
		}
	} else {
		printReport(res, issues)
	}

	if !res.OK() {
		os.Exit(1)
	}
}

func printReport(res *script.CompileResult, issues []script.Issue) {
	fmt.Printf("chatstory compiler %s\n", version.Version)
	fmt.Printf("%d scenes, %d choices\n", len(res.Scenes), len(res.Choices))
	if res.DayMeta.BackgroundStyle != "" {
		fmt.Printf("background: %s\n", res.DayMeta.BackgroundStyle)
	}

	for _, e := range res.Errors {
		if e.Line > 0 {
			fmt.Printf("error: line %d: %s (%s)\n", e.Line, e.Message, e.Content)
		} else {
			fmt.Printf("error: %s (%s)\n", e.Message, e.Content)
		}
	}
	for _, w := range res.Warnings {
		fmt.Printf("warning: line %d: %s\n", w.Line, w.Message)
	}
	for _, issue := range issues {
		if issue.SceneIndex >= 0 {
			fmt.Printf("%s: scene #%d: %s\n", issue.Severity, issue.SceneIndex+1, issue.Message)
		} else {
			fmt.Printf("%s: %s\n", issue.Severity, issue.Message)
		}
	}

	if res.OK() {
		fmt.Println("ok: script is publishable")
	} else {
		fmt.Printf("failed: %d errors block publishing\n", len(res.Errors))
	}
}
