// Package crossref provides a search adapter for the CrossRef REST API.
//
// CrossRef is the DOI registration agency for scholarly publishing and exposes
// bibliographic metadata for over 150 million works. This package implements
// the papersources.SearchSource interface against the works endpoint.
//
// API documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// WorksResponse is the top-level response from the works endpoint.
type WorksResponse struct {
	Status  string  `json:"status"`
	Message Message `json:"message"`
}

// Message contains the result payload of a works query.
type Message struct {
	TotalResults int    `json:"total-results"`
	Items        []Work `json:"items"`
}

// Work represents a single registered work.
//
// CrossRef returns titles and container titles as arrays; the first element
// is the primary value.
type Work struct {
	DOI            string       `json:"DOI"`
	Title          []string     `json:"title"`
	ContainerTitle []string     `json:"container-title"`
	Abstract       string       `json:"abstract"`
	Author         []WorkAuthor `json:"author"`
	Issued         DateParts    `json:"issued"`
	PublishedPrint DateParts    `json:"published-print"`
	Type           string       `json:"type"`
	URL            string       `json:"URL"`
}

// WorkAuthor represents an author of a work. Individuals carry given and
// family names; organizations carry a single name.
type WorkAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

// DateParts represents CrossRef's nested date format, e.g.
// {"date-parts": [[2023, 9, 14]]}.
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}

// Year returns the year component of the first date, or 0 when absent.
func (d DateParts) Year() int {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0
	}
	return d.DateParts[0][0]
}
