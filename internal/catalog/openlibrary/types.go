package openlibrary

// Wire types for the Open Library search API.

type searchResponse struct {
	NumFound int   `json:"numFound"`
	Docs     []doc `json:"docs"`
}

type doc struct {
	Key                  string   `json:"key"`
	Title                string   `json:"title"`
	AuthorName           []string `json:"author_name"`
	FirstPublishYear     int      `json:"first_publish_year"`
	ISBN                 []string `json:"isbn"`
	CoverID              int      `json:"cover_i"`
	NumberOfPagesMedian  int      `json:"number_of_pages_median"`
}
