// Package extract turns a careerspace.app vacancy detail page into a
// vacancy.Record: title, seniority levels, location flags, employer and
// salary range.
package extract
