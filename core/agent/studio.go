package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

const studioSystemPrompt = "You are a music production assistant inside a browser-based audio studio. Answer concisely and concretely."

// DescribeStems asks for arrangement notes about a mix that was split into stems.
func DescribeStems(ctx context.Context, p Provider, originalPath string, stems []string) (string, error) {
	prompt := fmt.Sprintf(
		"A mix named %q was separated into the stems %s. Give short arrangement and mixing notes for each stem.",
		filepath.Base(originalPath), strings.Join(stems, ", "))
	return complete(ctx, p, prompt, 500)
}

// VoiceAnalysis is the structured description of a voice sample.
type VoiceAnalysis struct {
	Gender          string   `json:"gender"`
	AgeRange        string   `json:"ageRange"`
	Tone            string   `json:"tone"`
	Accent          string   `json:"accent"`
	Characteristics []string `json:"characteristics"`
}

// AnalyzeVoice asks for a JSON description of the voice in a sample that will
// read text. The reply must contain a JSON object.
func AnalyzeVoice(ctx context.Context, p Provider, samplePath, text string) (*VoiceAnalysis, error) {
	prompt := fmt.Sprintf(
		"A voice sample %q will be used to read the text %q. Describe the voice as a JSON object with the keys "+
			"gender, ageRange, tone, accent and characteristics (an array of strings). Reply with the JSON object only.",
		filepath.Base(samplePath), text)
	reply, err := complete(ctx, p, prompt, 400)
	if err != nil {
		return nil, err
	}
	return parseVoiceAnalysis(reply)
}

func parseVoiceAnalysis(reply string) (*VoiceAnalysis, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("voice analysis reply contains no JSON object")
	}
	var analysis VoiceAnalysis
	if err := json.Unmarshal([]byte(reply[start:end+1]), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse voice analysis: %w", err)
	}
	return &analysis, nil
}

// DescribeMusic asks for a description of the track a prompt should produce.
func DescribeMusic(ctx context.Context, p Provider, prompt string) (string, error) {
	return complete(ctx, p, fmt.Sprintf(
		"Describe the piece of music for the prompt %q: genre, tempo, key, instrumentation and structure.", prompt), 500)
}

func complete(ctx context.Context, p Provider, prompt string, maxTokens int) (string, error) {
	reply, err := p.Complete(ctx, Request{System: studioSystemPrompt, Prompt: prompt, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.Name(), err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%s returned an empty reply", p.Name())
	}
	return reply, nil
}
