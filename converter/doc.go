// Package converter turns rendered DOCX documents into PDF by running
// LibreOffice in headless mode. Ex is the underlying command runner and logs
// every invocation with its combined output.
package converter
