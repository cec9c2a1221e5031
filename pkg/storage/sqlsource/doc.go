// Package sqlsource reads forum activity from a phpBB-style SQL schema.
//
// Source implements activity.DataSource for PostgreSQL (lib/pq) and SQLite
// (mattn/go-sqlite3). Engine differences, such as bind placeholder syntax and
// the distinct-count query form, are handled by Dialect and never leak into the
// aggregation code.
//
// Tables read (with an optional prefix, "phpbb_" by default):
//
//	users    user_id, username, user_colour, user_type, user_regdate, user_lastvisit
//	sessions session_user_id, session_ip, session_time
//	posts    post_id, post_time
//	topics   topic_id, topic_time
//
// Timestamps are unix seconds. Query failures are wrapped with
// activity.ErrDataSourceUnavailable; NULL or invalid fields with
// activity.ErrDataSourceMalformed.
package sqlsource
