package chat

import "propchat/internal/model"

// AssembleContext merges session uploads and retrieved index hits into the
// fragment list the prompt builder consumes. Uploaded pages always come
// first and are never capped; the user asked about them explicitly.
func AssembleContext(uploads []model.SessionDocument, retrieved []model.ContextFragment) []model.ContextFragment {
	fragments := make([]model.ContextFragment, 0, len(retrieved)+len(uploads))

	for _, doc := range uploads {
		if len(doc.PageTexts) == 0 {
			// Extraction without a page split is treated as one page.
			fragments = append(fragments, model.ContextFragment{
				Content:    doc.Content,
				Filename:   doc.Filename,
				SourceType: model.SourceUploaded,
				PageNumber: 1,
			})
			continue
		}
		for _, page := range doc.PageTexts {
			fragments = append(fragments, model.ContextFragment{
				Content:    page.Text,
				Filename:   doc.Filename,
				SourceType: model.SourceUploaded,
				PageNumber: page.PageNumber,
			})
		}
	}

	return append(fragments, retrieved...)
}
