// Package generation provides interfaces for interacting with external
// AI/LLM services for content generation and quality evaluation. It
// abstracts the details of LLM API integration (Gemini), allowing the
// pipeline to generate article drafts and score them without coupling to
// specific external services.
package generation
