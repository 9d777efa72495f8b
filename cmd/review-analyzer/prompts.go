package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/theimaginaryfoundation/review-sentiment/analysis"
)

// promptOptions returns the default few-shot prompt, with the system header replaced when
// -prompt-file is set.
func promptOptions(promptFile string) (analysis.PromptOptions, error) {
	opts := analysis.PromptOptions{}
	if promptFile == "" {
		return opts, nil
	}
	h, err := loadPromptHeaderFromFile(promptFile)
	if err != nil {
		return analysis.PromptOptions{}, err
	}
	opts.SystemHeader = h
	return opts, nil
}

func loadPromptHeaderFromFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("prompt-file is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt-file: %w", err)
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", errors.New("prompt-file is empty after trimming whitespace")
	}
	return s, nil
}
