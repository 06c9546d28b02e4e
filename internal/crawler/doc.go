// Package crawler validates crawl configuration and collects vacancy detail
// URLs from the careerspace.app listing page by scrolling a Chrome session
// until enough cards have loaded.
package crawler
