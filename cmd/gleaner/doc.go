// Command gleaner mines quote-like statements from EPUB books with a
// generative model and curates them through an approval-and-grouping pass.
package main
