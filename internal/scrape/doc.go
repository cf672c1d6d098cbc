// Package scrape implements the first pipeline stage: fetching a news
// article and extracting its title, body text, in-article images, and a
// source credibility assessment.
//
// The stage writes two artifacts: the per-subject scrape record and the
// accumulated flat list of image URLs consumed later by the image
// evaluation stage.
package scrape
