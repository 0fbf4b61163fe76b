// Package schedule evaluates charity operating hours.
//
// An OperatingSchedule groups "HH:MM-HH:MM" ranges under the daily, weekdays
// and weekends buckets. Evaluation never fails: malformed ranges are skipped
// and a schedule that cannot be interpreted is reported as closed. Ranges
// spanning midnight (start after end) never match.
package schedule
