// Package model defines the boundary between agents and language-model
// backends. A Model turns a list of chat messages (plus optional tool
// descriptors) into a Response which may include structured tool-call
// requests. Implementations must be safe for concurrent use by independent
// agent invocations. Subpackages adapt concrete vendors (OpenAI, Anthropic);
// the MockModel in this package backs tests and examples.
package model
