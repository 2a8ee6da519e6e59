package store

var Classify = classify
