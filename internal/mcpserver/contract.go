package mcpserver

// NoteFormatContract describes how slipbox notes are written so that LLM
// consumers can draft notes the index will accept.
const NoteFormatContract = `# Slipbox Note Format Contract

A source file may hold any number of notes. Every note starts with a
level-1 heading made of a numeric id and a title.

## Structure

` + "```" + `markdown
# 12 Title of the note

Body text in any format the converter understands.

Link to another note with [its title](#7).
Mark the direction of a link with the link title: [parent](#3 "<") or [child](#9 ">").
Tag the note with #hashtags anywhere in the body.
Cite a reference with [@key] when a bibliography is configured.
` + "```" + `

## Rules

1. **Ids are non-negative integers** and unique across the whole slipbox.
   Use the ` + "`" + `suggest_ids` + "`" + ` tool to get unused ids.
2. **Everything up to the next level-1 heading** belongs to the note.
3. **Links** target ` + "`" + `#<id>` + "`" + `. Links to ids that do not exist are errors;
   links with an empty target are warnings.
4. **Tags** start with ` + "`" + `#` + "`" + ` and may not end with punctuation.
5. **Images** use paths relative to the file that embeds them.
6. **Supported formats** are listed by ` + "`" + `slipbox formats` + "`" + `.

## Example

` + "```" + `markdown
# 1 Zettelkasten

A slip box is a conversation partner #method.
See [atomic notes](#2 ">") and [@luhmann1992].

# 2 Atomic notes

One idea per note. Back to [the overview](#1 "<").
` + "```" + `
`
