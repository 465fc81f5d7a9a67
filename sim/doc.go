// Package sim provides the genetics engine of the breeding simulator.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - genome.go: diploid genome (trait loci + SNP haplotypes), phenotype and fitness
//   - breeding.go: the mate algorithm (recombination, mutation, trait inheritance)
//   - population.go: roster, lineage registry, generation advancement
//
// # Architecture
//
// The sim package owns the engine types; collaborators live in sub-packages:
//   - sim/strain/: real strain genotype/phenotype tables and gene models
//   - sim/trace/: mating decision trace recording
//   - sim/validation/: statistical checks of the engine against theory
//   - sim/session/: registry-backed service surface for hosts (CLI, HTTP)
//   - sim/store/: persistence backends (memory, SQLite, Postgres)
//   - sim/report/: comparison tables and history export (directory, S3)
//
// # Randomness
//
// Every random draw comes from a *rand.Rand handed out by PartitionedRNG.
// Founders, marker effects, breeding, trait noise and selection draw from
// separate subsystems so that changing one does not shift the others.
//
// # Concurrency
//
// Nothing in this package is safe for concurrent use. Population, Pedigree,
// Breeder and IDAllocator must be driven from one goroutine at a time;
// sim/session serializes access for concurrent hosts.
package sim
