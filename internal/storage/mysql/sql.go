package mysql

const upsertProjectSQL = `
INSERT INTO projects
  (id, title, description, sector, district, city, region, lat, lon, location_label, geohash,
   developer, status, sale_status, construction_status, min_price, max_price, currency,
   min_bedrooms, max_bedrooms, bedrooms_label, min_area, max_area, area_unit,
   completion_date, handover_date, cover_image, is_featured, media, amenities, poi, raw, synced_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  title               = VALUES(title),
  description         = VALUES(description),
  sector              = VALUES(sector),
  district            = VALUES(district),
  city                = VALUES(city),
  region              = VALUES(region),
  lat                 = VALUES(lat),
  lon                 = VALUES(lon),
  location_label      = VALUES(location_label),
  geohash             = VALUES(geohash),
  developer           = VALUES(developer),
  status              = VALUES(status),
  sale_status         = VALUES(sale_status),
  construction_status = VALUES(construction_status),
  min_price           = VALUES(min_price),
  max_price           = VALUES(max_price),
  currency            = VALUES(currency),
  min_bedrooms        = VALUES(min_bedrooms),
  max_bedrooms        = VALUES(max_bedrooms),
  bedrooms_label      = VALUES(bedrooms_label),
  min_area            = VALUES(min_area),
  max_area            = VALUES(max_area),
  area_unit           = VALUES(area_unit),
  completion_date     = VALUES(completion_date),
  handover_date       = VALUES(handover_date),
  cover_image         = VALUES(cover_image),
  is_featured         = VALUES(is_featured),
  media               = VALUES(media),
  amenities           = VALUES(amenities),
  poi                 = VALUES(poi),
  raw                 = VALUES(raw),
  synced_at           = VALUES(synced_at)
`

const deletePaymentPlansSQL = `DELETE FROM project_payment_plans WHERE project_id = ?`

const deletePropertyTypesSQL = `DELETE FROM project_property_types WHERE project_id = ?`

const insertPaymentPlansPrefix = "INSERT INTO project_payment_plans (project_id, position, name, raw) VALUES "

const insertPropertyTypesPrefix = "INSERT INTO project_property_types\n" +
	"  (project_id, position, type, starting_price, starting_area, bedrooms, raw)\nVALUES "

const countProjectsSQL = `SELECT COUNT(*) FROM projects`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// listColumns must stay in step with scanView.
const listColumns = `
  p.id, p.title, p.description, p.location_label, p.district, p.city, p.lat, p.lon, p.geohash,
  p.developer, p.status, p.sale_status, p.construction_status, p.min_price, p.max_price, p.currency,
  p.min_bedrooms, p.max_bedrooms, p.min_area, p.max_area, p.area_unit,
  p.completion_date, p.handover_date, p.cover_image, p.is_featured, p.synced_at`

const listOrder = ` ORDER BY p.is_featured DESC, p.synced_at DESC, p.id`

const getProjectSQL = `SELECT` + listColumns + `, p.media, p.amenities FROM projects p WHERE p.id = ?`

const listPaymentPlansSQL = `
SELECT name, raw FROM project_payment_plans WHERE project_id = ? ORDER BY position`

const listPropertyTypesSQL = `
SELECT type, starting_price, starting_area, bedrooms
FROM project_property_types WHERE project_id = ? ORDER BY position`

const propertyTypeNamesPrefix = `SELECT project_id, type FROM project_property_types WHERE project_id IN `

const getRateSQL = `
SELECT base, target, rate, provider, fetched_at FROM exchange_rates WHERE base = ? AND target = ?`

const upsertRateSQL = `
INSERT INTO exchange_rates (base, target, rate, provider, fetched_at)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  rate       = VALUES(rate),
  provider   = VALUES(provider),
  fetched_at = VALUES(fetched_at)
`

const findTranslationsPrefix = `SELECT source, translated FROM translations WHERE lang = ? AND source_hash IN `

const upsertTranslationsPrefix = "INSERT INTO translations\n" +
	"  (lang, source_hash, source, translated, char_count, last_used_at)\nVALUES "

const upsertTranslationsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  translated   = VALUES(translated),\n" +
	"  char_count   = VALUES(char_count),\n" +
	"  last_used_at = VALUES(last_used_at)\n"

const touchTranslationsPrefix = `UPDATE translations SET last_used_at = ? WHERE lang = ? AND source_hash IN `
