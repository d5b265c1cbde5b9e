// Package llm wraps the OpenRouter chat-completion API behind two small
// entry points: Complete for plain-text answers and CompleteJSON for
// JSON-mode answers. Requests retry with exponential backoff on transient
// failures and honor Retry-After hints from the server.
package llm
