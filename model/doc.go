// Package model defines the language-model backend abstraction consumed by
// the conversation engine: a normalized Request (ordered messages plus an
// optional tool catalog) and a Response made of ordered content blocks, each
// either text or tool_use. Provider adapters live in the subpackages
// model/anthropic and model/openai; MockBackend supports tests and examples.
package model
