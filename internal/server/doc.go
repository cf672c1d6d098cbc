// Package server exposes the analysis pipeline over HTTP.
//
// POST /analyze runs the full pipeline for one article URL and returns
// its verdict. Requests are serialized: the artifact store supports one
// active run at a time. GET /health reports liveness.
package server
