package mysql

const upsertDocumentSQL = `
INSERT INTO documents
  (collection, doc_key, body)
VALUES
  (?, ?, ?)
ON DUPLICATE KEY UPDATE
  body       = VALUES(body),
  updated_at = CURRENT_TIMESTAMP
`

const listDocumentsSQL = `
SELECT doc_key, body
FROM documents
WHERE collection = ?
`

const getDocumentSQL = `
SELECT body
FROM documents
WHERE collection = ? AND doc_key = ?
`

const deleteDocumentSQL = `DELETE FROM documents WHERE collection = ? AND doc_key = ?`

const clearCollectionSQL = `DELETE FROM documents WHERE collection = ?`
