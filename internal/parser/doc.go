// Package parser turns a BLS timeseries JSON payload into canonical records.
//
// Parsing has two layers:
//
//  1. Shape: the payload must decode and carry a Results.series list.
//     Anything else is a *MalformedResponseError that keeps the raw payload.
//  2. Records: every observation passes through Validate, the single place
//     the accept/skip/reject policy lives. Annual averages (M13) are
//     skipped; other non-monthly periods and unusable values are rejected
//     with a reason. Neither stops the parse.
//
// Accepted records are reshaped into a timeseries.Table with mean
// aggregation when the same (month, indicator) appears more than once.
package parser
