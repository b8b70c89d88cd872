package sqlstore

// Column names mirror the source dataset; both SQLite and MySQL accept them unquoted.
const createReviewsSQL = `
CREATE TABLE IF NOT EXISTS reviews (
  reviewerID     TEXT,
  asin           TEXT,
  reviewerName   TEXT,
  vote           INTEGER,
  style          TEXT,
  reviewText     TEXT,
  overall        FLOAT,
  summary        TEXT,
  unixReviewTime INTEGER,
  reviewTime     TEXT,
  image          TEXT
)`

// SQLite only; MySQL cannot index TEXT without a prefix length.
const createASINIndexSQLite = `CREATE INDEX IF NOT EXISTS idx_reviews_asin ON reviews(asin)`

const deleteReviewsSQL = `DELETE FROM reviews`

const insertReviewsPrefix = "INSERT INTO reviews\n  (reviewerID, asin, reviewerName, vote, style, reviewText, overall, summary, unixReviewTime, reviewTime, image)\nVALUES "

const reviewPlaceholders = "(?,?,?,?,?,?,?,?,?,?,?)"

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const listByASINSQL = `
SELECT reviewerID, asin, reviewerName, vote, style, reviewText, overall, summary, unixReviewTime, reviewTime, image
FROM reviews
WHERE asin = ?
ORDER BY unixReviewTime DESC
LIMIT ?`

// Hardcover ASINs: exact, case-sensitive match on the trimmed format.
const hardcoverSQLite = `
SELECT asin FROM reviews
WHERE overall > 3 AND TRIM(style) = 'Hardcover' AND asin IS NOT NULL
GROUP BY asin
ORDER BY asin`

// MySQL's default collation is case-insensitive; BINARY restores exact match.
const hardcoverMySQL = `
SELECT asin FROM reviews
WHERE overall > 3 AND BINARY TRIM(style) = 'Hardcover' AND asin IS NOT NULL
GROUP BY asin
ORDER BY BINARY asin`

// Ties on the count go to the smallest ASIN.
const topASINSQLite = `
SELECT asin, COUNT(reviewerID) AS n FROM reviews
WHERE asin IS NOT NULL
GROUP BY asin
ORDER BY n DESC, asin ASC
LIMIT 1`

const topASINMySQL = `
SELECT asin, COUNT(reviewerID) AS n FROM reviews
WHERE asin IS NOT NULL
GROUP BY asin
ORDER BY n DESC, BINARY asin ASC
LIMIT 1`
