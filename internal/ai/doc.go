// Package ai generates short reply suggestions for a thread via the Gemini
// API. The feature is optional; without an API key every call reports that
// suggestions are disabled.
package ai
