// Package epub reads EPUB archives into plain-text sections and splits them
// into bounded, overlapping chunks sized for model prompts.
package epub
