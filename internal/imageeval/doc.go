// Package imageeval implements the image authenticity evaluation stage.
//
// Every image URL accumulated in the store is checked with two evidence
// tools: a reverse image search via SerpAPI and an EXIF software-tag
// inspection of the image bytes. The tool outputs are combined into an
// authenticity assessment between 0 (manipulated or generated) and 1
// (authentic), written per image to the artifact store. Individual tool
// failures are recorded as evidence; they never fail the stage.
package imageeval
