// Package experiment holds the Builder experiment model and the code
// generator that turns it into a runnable script.
//
// An Experiment owns its Settings, a set of Routines and a Flow. Routines
// are timelines of Components; the Flow orders Routines and wraps them in
// loops. WriteScript walks the Flow and asks every element to write its
// part of the script into a shared Context, for either the Python or the
// JavaScript target.
//
// Experiments are persisted as .psyexp XML documents. Loading migrates
// params written by older versions of the format and keeps anything it
// does not understand so that saving never loses data.
package experiment
