// Package prompt fills a form controller from an interactive terminal session.
package prompt
