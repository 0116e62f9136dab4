// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package model holds the deployment snapshot the graph builders consume:
// node templates, their instances, the relationships between instances and
// the lifecycle states an instance can be observed in.
//
// # Why Model Exists
//
// Graph construction must be a pure function of its input. Keeping the
// snapshot in plain, immutable structs (rather than live handles onto the
// control plane) gives the builders a stable view for the whole run:
//   - **Determinism:** the same snapshot always yields the same graph shape
//   - **Testability:** fixtures are ordinary Go literals
//   - **Isolation:** nothing in here performs I/O
//
// Runtime properties that change while a workflow runs are not part of this
// package. They live behind propertystore.Store.
package model
