// Package fakenews implements the fake-news text analysis stage.
//
// The subject's title and body text are cleaned and submitted to a
// hosted sequence classifier, which returns FAKE/REAL probabilities.
// The stage writes the prediction, confidence, and class distribution
// to the artifact store. Classifier failures are recorded per subject;
// only a missing input artifact or missing credential fails the stage.
package fakenews
