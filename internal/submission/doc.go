// Package submission turns the ordered row set into submission groups and
// derives what each group publishes: category pairs, the attribute payload and
// one variation descriptor per contributing row.
//
// Grouping is purely positional. A "revised" row opens a group and the run of
// empty-status rows right after it are its variants.
package submission
