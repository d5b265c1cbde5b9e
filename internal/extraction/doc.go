// Package extraction runs the quote mining pass: an EPUB is split into
// overlapping chunks, each chunk goes to the model, and the returned quote
// candidates are validated and stored with pending approvals. Progress is
// recorded per chunk so an interrupted run resumes where it stopped.
package extraction
