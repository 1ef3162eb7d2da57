// Package ir provides the foundational value and schema types for querydsl.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is sealed: Null, Int, Decimal, String and Bool are the only scalars
//   - Entities are immutable once registered in a Schema
//   - Canonical text (used for expression keys) NFC-normalizes strings
package ir
