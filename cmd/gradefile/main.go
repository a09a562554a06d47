// Command gradefile grades a JSON document of questions and responses
// offline and prints the batch result.
//
//	gradefile [-log-level debug] [-pretty] [-max-edit 2] input.json
//
// The input has the shape {"questions": [...], "responses": {"q1": ...}}.
// "-" reads from stdin.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/stemsi/quizgrade/internal/grading"
	"github.com/stemsi/quizgrade/internal/logger"
)

type input struct {
	Questions []grading.Question `json:"questions"`
	Responses map[string]any     `json:"responses"`
}

func main() {
	var (
		logLevel string
		pretty   bool
		maxEdit  int
	)
	flag.StringVar(&logLevel, "log-level", "warn", "Log level for grading diagnostics")
	flag.BoolVar(&pretty, "pretty", false, "Human-readable logs")
	flag.IntVar(&maxEdit, "max-edit", 0, "Default fuzzy distance for short-text questions")
	flag.Parse()

	format := "json"
	if pretty {
		format = "pretty"
	}
	log := logger.New(os.Stderr, logLevel, format)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: gradefile [flags] <file|->")
		flag.PrintDefaults()
		os.Exit(2)
	}

	in, err := readInput(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Str("file", flag.Arg(0)).Msg("Failed to read input")
	}

	engine := grading.New(grading.WithLogger(log), grading.WithMaxEditDistance(maxEdit))
	result := engine.GradeBatch(in.Questions, in.Responses)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatal().Err(err).Msg("Failed to write result")
	}
}

func readInput(path string) (input, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return input{}, err
		}
		defer f.Close()
		r = f
	}

	var in input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return input{}, fmt.Errorf("decode: %w", err)
	}
	if len(in.Questions) == 0 {
		return input{}, fmt.Errorf("no questions")
	}
	return in, nil
}
