// Copyright 2021 The streamx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies transport errors seen during a streaming
// HTTP exchange as transient or non-transient. The streamx request
// lifecycle consults it to decide whether a failure on a reused
// connection is worth one recovery attempt on a fresh connection, and
// callers can consult it to build retry logic of their own on top of
// the lifecycle events.
//
// Package transient depends only on the standard library packages
// "errors" and "syscall", so importing it standalone brings in no
// dependency weight.
package transient
