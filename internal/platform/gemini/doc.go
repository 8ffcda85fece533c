// Package gemini implements the generation.Generator and
// generation.QualityChecker interfaces on Google's Gemini API.
//
// Transport errors are retried internally with capped exponential backoff
// and jitter; safety blocks and malformed responses are permanent and
// surface immediately through the generation error taxonomy.
package gemini
