// Package domain contains the core business entities of the content
// pipeline: articles, article versions, orders, and the quality-control
// verdict attached to generated content. It represents the heart of the
// system, independent of any specific infrastructure or delivery mechanism.
// Entities validate themselves and own their status transition rules.
package domain
