// Package wikicheck implements the Wikipedia fact-check stage.
//
// Claims are extracted from the text surrounding each in-article image,
// checked against Wikipedia search results, and scored by textual and
// entity similarity. Each claim receives a verdict (SUPPORTED, NEUTRAL,
// REFUTED, or NOT_FOUND) with evidence, and the stage writes per-subject
// results plus aggregate statistics to the artifact store.
package wikicheck
