// Package notifier turns the conference schedule into timed notification
// tasks.
//
// Each cycle fetches the schedule, compares its fingerprint with the one the
// current tasks were derived from and, when it changed (or a refresh is
// forced), cancels every pending task and schedules new ones:
//
//   - one combined programme notification per start minute, sent to every
//     broadcast channel ProgrammeLeadTime before the start;
//   - one room notification per session, sent to the room's own webhook
//     RoomLeadTime before the start.
//
// A cached schedule never replaces tasks derived from a live one.
//
// The Poller drives cycles periodically with robfig/cron.
package notifier
