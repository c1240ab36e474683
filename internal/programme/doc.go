// Package programme holds the conference schedule model: parsing the pretalx
// document, fingerprinting it, grouping and filtering sessions, and turning an
// enriched session into a transport-neutral message embed.
package programme
