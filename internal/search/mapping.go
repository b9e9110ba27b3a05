package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for meme documents.
//
// Captions carry nearly all the searchable signal, so they get English
// stemming and term vectors for highlighting. Filenames are derived
// from captions but kept searchable for users who remember the file.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// Caption - primary search target
	captionFieldMapping := bleve.NewTextFieldMapping()
	captionFieldMapping.Analyzer = en.AnalyzerName
	captionFieldMapping.Store = true
	captionFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("caption", captionFieldMapping)

	// Filename - searchable without stemming (underscored words)
	filenameFieldMapping := bleve.NewTextFieldMapping()
	filenameFieldMapping.Analyzer = simple.Name
	filenameFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("filename", filenameFieldMapping)

	// Format - exact match filter (jpeg, png, gif, ...)
	formatFieldMapping := bleve.NewTextFieldMapping()
	formatFieldMapping.Analyzer = keyword.Name
	formatFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("format", formatFieldMapping)

	// ID - stored but not analyzed
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// Created timestamp - for sorting by recency
	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
