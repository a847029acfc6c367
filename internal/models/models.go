package models

import "time"

// Metadata is the bibliographic description of one book.
// Only Title, Authors, Year and Place take part in identity derivation.
type Metadata struct {
	Title            string   `json:"title" yaml:"title" bson:"title"`
	Authors          string   `json:"authors" yaml:"authors" bson:"authors"`
	Year             string   `json:"year" yaml:"year" bson:"year"`
	Place            string   `json:"pub_place" yaml:"pub_place" bson:"pub_place"`
	Publisher        string   `json:"publisher,omitempty" yaml:"publisher,omitempty" bson:"publisher"`
	PageCount        int      `json:"num_pages,omitempty" yaml:"num_pages,omitempty" bson:"num_pages"`
	Language         string   `json:"language,omitempty" yaml:"language,omitempty" bson:"language"`
	Notes            string   `json:"notes,omitempty" yaml:"notes,omitempty" bson:"notes"`
	Keywords         []string `json:"keywords,omitempty" yaml:"keywords,omitempty" bson:"keywords"`
	HasMaps          bool     `json:"maps_present" yaml:"maps_present" bson:"maps_present"`
	HasIllustrations bool     `json:"illustrations_present" yaml:"illustrations_present" bson:"illustrations_present"`
	HasTables        bool     `json:"tables_present" yaml:"tables_present" bson:"tables_present"`
}

// PageDescriptor is the structured form of a scan filename
type PageDescriptor struct {
	Alias     string `json:"alias" bson:"alias"`
	RawToken  string `json:"page_raw_number_str" bson:"page_raw_number_str"`
	TypeCode  string `json:"page_type_short" bson:"page_type_short"`
	TypeLabel string `json:"page_type_full" bson:"page_type_full"`
	Number    int    `json:"page_number_numeric" bson:"page_number_numeric"`
	Roman     string `json:"roman_number" bson:"roman_number"`
	Extension string `json:"original_extension" bson:"original_extension"`
}

// DateMention is a date found in OCR text. Parsed is an ISO-8601 calendar date
// using astronomical year numbering (200 BC is "-0199-01-01"), empty when the
// text could not be resolved to a date.
type DateMention struct {
	Text   string   `json:"text" bson:"text"`
	Parsed string   `json:"parsed,omitempty" bson:"parsed"`
	Places []string `json:"places,omitempty" bson:"places"`
}

// ScanRecord is one processed page stored inside a book aggregate.
type ScanRecord struct {
	PageDescriptor `bson:",inline"`

	OCRText     string        `json:"ocr_text" bson:"ocr_text"`
	Path        string        `json:"page_full_path" bson:"page_full_path"`
	Dates       []DateMention `json:"extracted_dates,omitempty" bson:"extracted_dates"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`
	ProcessedAt time.Time     `json:"processed_at" bson:"processed_at"`
}

// BookAggregate is the full persisted record of one book.
// Scans are keyed by RawToken and kept in insertion order.
type BookAggregate struct {
	Identity string `json:"book_hash" bson:"book_hash"`

	Metadata `bson:",inline"`

	Scans     []ScanRecord `json:"scans" bson:"scans"`
	CreatedAt time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time    `json:"last_updated_book_at" bson:"last_updated_book_at"`
}

// Scan returns the scan stored under token, if any.
func (b *BookAggregate) Scan(token string) (ScanRecord, bool) {
	for _, s := range b.Scans {
		if s.RawToken == token {
			return s, true
		}
	}
	return ScanRecord{}, false
}

// TimelineEntry is one dated mention resolved against the book it came from.
type TimelineEntry struct {
	DateParsed string   `json:"date_parsed" parquet:"date_parsed"`
	DateText   string   `json:"date_text" parquet:"date_text"`
	Places     []string `json:"places,omitempty" parquet:"places,list"`
	BookHash   string   `json:"book_hash" parquet:"book_hash"`
	BookTitle  string   `json:"book_title" parquet:"book_title"`
	BookAuthor string   `json:"book_author" parquet:"book_author"`
	ScanPath   string   `json:"scan_path" parquet:"scan_path"`
	OCRSnippet string   `json:"ocr_snippet" parquet:"ocr_snippet"`
}
