// Package gen implements the external collaborators of the shadowing core:
// the OpenAI-backed script generator and speech synthesizer, and a web
// search client for grounding themes in live results. The core only sees
// these through the shadow package interfaces.
package gen
