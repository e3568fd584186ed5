// Package models defines the domain types for the slipbox index.
package models

import "strings"

// EmptyTarget is the destination id recorded for links with an empty target.
const EmptyTarget = -1

// ReferencePrefix is the key prefix of every bibliography entry.
const ReferencePrefix = "ref-"

// File is a source file recorded in the index.
type File struct {
	Path string `json:"filename"`
	Hash string `json:"hash"`
}

// Note is a level-1 section of a source file.
type Note struct {
	ID       int    `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Filename string `json:"filename" yaml:"filename"`
	HTML     string `json:"-" yaml:"-"`
}

// Tag associates a hashtag with a note.
type Tag struct {
	Tag    string `json:"tag"`
	NoteID int    `json:"id"`
}

// Direction is the optional direction annotation of a link.
type Direction string

const (
	Unspecified Direction = ""
	Forward     Direction = ">"
	Backward    Direction = "<"
)

// ParseDirection maps the sideband encoding to a Direction. Unknown values are Unspecified.
func ParseDirection(s string) Direction {
	switch strings.TrimSpace(s) {
	case ">", "forward":
		return Forward
	case "<", "backward":
		return Backward
	default:
		return Unspecified
	}
}

// Link is a directed edge between two notes.
type Link struct {
	Src       int       `json:"src"`
	Dest      int       `json:"dest"`
	Direction Direction `json:"direction,omitempty"`
}

// BibliographyEntry is a rendered reference.
type BibliographyEntry struct {
	Key  string `json:"key"`
	HTML string `json:"html"`
}

// Citation records that a note cites a bibliography entry.
type Citation struct {
	NoteID int    `json:"note"`
	Key    string `json:"reference"`
}

// Image is an image file referenced by a note.
type Image struct {
	Filename string
	Binary   []byte
}

// ImageLink records that a note embeds an image.
type ImageLink struct {
	NoteID   int
	Filename string
}
