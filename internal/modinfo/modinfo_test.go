// Package modinfo tests transcript parsing, reference selection and author reduction.
// Related: internal/modinfo/parser.go, internal/modinfo/reference.go, internal/modinfo/authors.go
// Tags: modinfo, transcript, parser, references, authors

package modinfo

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(transcript string) Buckets {
	b, _ := Parse(strings.NewReader(transcript))
	return b
}

func TestSelectReference(t *testing.T) {
	tests := map[string]struct {
		refs []string
		want string
	}{
		"cve beats bid": {
			refs: []string{"BID-100", "CVE-2020-1"},
			want: "CVE-2020-1",
		},
		"cve beats bid in either order": {
			refs: []string{"CVE-2020-1", "BID-100"},
			want: "CVE-2020-1",
		},
		"microsoft bulletin wins": {
			refs: []string{
				"https://cvedetails.com/cve/2008-4250/",
				"https://technet.microsoft.com/en-us/library/security/bulletin/MS08-067.msp",
				"http://www.zerodayinitiative.com/advisories/ZDI-08-001",
			},
			want: "MS08-067",
		},
		"zdi beats cve": {
			refs: []string{
				"http://www.zerodayinitiative.com/advisories/ZDI-15-123/",
				"http://cve.mitre.org/cgi-bin/cvename.cgi?name=2015-0001",
			},
			want: "ZDI-15-123",
		},
		"cve prefix added": {
			refs: []string{"http://cvedetails.com/cve/2014-6271/"},
			want: "CVE-2014-6271",
		},
		"cve prefix not doubled": {
			refs: []string{"https://nvd.nist.gov/vuln/detail/CVE-2017-0144"},
			want: "CVE-2017-0144",
		},
		"osvdb beats bid": {
			refs: []string{"http://www.securityfocus.com/bid/1234", "http://www.osvdb.org/5678"},
			want: "OSVDB-5678",
		},
		"bid alone": {
			refs: []string{"http://www.securityfocus.com/bid/1234"},
			want: "BID-1234",
		},
		"later equal rank wins": {
			refs: []string{"CVE-2020-1", "CVE-2020-2"},
			want: "CVE-2020-2",
		},
		"unrecognised after a match is ignored": {
			refs: []string{"CVE-2020-1", "https://example.com/blog"},
			want: "CVE-2020-1",
		},
		"nothing recognised": {
			refs: []string{"https://example.com/blog", "URL-foo"},
			want: NoReference,
		},
		"empty list": {
			refs: nil,
			want: NoReference,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectReference(tt.refs))
		})
	}
}

func TestSelectReference_DuplicatesOrderIndependent(t *testing.T) {
	a := SelectReference([]string{"CVE-2020-1", "BID-1", "CVE-2020-1", "OSVDB-9"})
	b := SelectReference([]string{"OSVDB-9", "CVE-2020-1", "CVE-2020-1", "BID-1"})
	assert.Equal(t, "CVE-2020-1", a)
	assert.Equal(t, a, b)
}

func TestHasReference(t *testing.T) {
	assert.False(t, HasReference(""))
	assert.False(t, HasReference(NoReference))
	assert.True(t, HasReference("CVE-2020-1"))
}

func TestReduceAuthors(t *testing.T) {
	tests := map[string]struct {
		authors []string
		want    string
	}{
		"nobody":         {authors: nil, want: "NOBODY"},
		"one":            {authors: []string{"zed"}, want: "zed"},
		"two":            {authors: []string{"ann", "bob"}, want: "ann and bob"},
		"three":          {authors: []string{"ann", "bob", "cid"}, want: "ann, bob, and cid"},
		"sorted":         {authors: []string{"cid", "ann", "bob"}, want: "ann, bob, and cid"},
		"alias promoted": {authors: []string{"hdm", "zed"}, want: "hdm and zed"},
		"alias promoted past sorted names": {
			authors: []string{"alice", "wvu", "bob"},
			want:    "wvu, alice, and bob",
		},
		"later alias ends up first": {
			authors: []string{"todb", "zed", "hdm"},
			want:    "hdm, todb, and zed",
		},
		"juan canonicalised": {
			authors: []string{"zed", "juan"},
			want:    "juan vazquez and zed",
		},
		"egypt canonicalised": {
			authors: []string{"egypt", "ann"},
			want:    "egyp7 and ann",
		},
		"canonical and alias collapse": {
			authors: []string{"egypt", "egyp7"},
			want:    "egyp7",
		},
		"contact details dropped": {
			authors: []string{"Alice Smith <alice[at]example.com>", "  bob  "},
			want:    "Alice Smith and bob",
		},
		"empty names dropped": {
			authors: []string{"<nobody@example.com>", ""},
			want:    "NOBODY",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReduceAuthors(tt.authors))
		})
	}
}

func TestParse_SingleSection(t *testing.T) {
	b := parseString("BEGIN:U1\nName: Foo\nProvided by:\nalice\n\nEND:U1\n")

	require.Equal(t, 1, b.Len())
	rec, ok := b.Get("U1")
	require.True(t, ok)
	assert.Equal(t, "Foo", rec.Name)
	assert.Equal(t, "alice", rec.Authors)
	assert.Empty(t, rec.Reference)
	assert.False(t, rec.HasReference())
}

func TestParse_UnterminatedSectionDropped(t *testing.T) {
	b := parseString("BEGIN:U1\nName: Foo\nProvided by:\nalice\n\n")
	assert.Equal(t, 0, b.Len())
}

const consoleTranscript = `[*] Processing /tmp/msfstats-1/modinfo.rc for ERB directives.
resource (/tmp/msfstats-1/modinfo.rc)> spool /tmp/msfstats-1/modinfo.txt
[*] Spooling to file /tmp/msfstats-1/modinfo.txt...
resource (/tmp/msfstats-1/modinfo.rc)> echo BEGIN: https://www.rapid7.com/db/modules/exploit/windows/smb/ms08_067_netapi
BEGIN: https://www.rapid7.com/db/modules/exploit/windows/smb/ms08_067_netapi
resource (/tmp/msfstats-1/modinfo.rc)> info exploit/windows/smb/ms08_067_netapi

       Name: MS08-067 Microsoft Server Service Relative Path Stack Corruption
     Module: exploit/windows/smb/ms08_067_netapi
   Platform: Windows
       Rank: Great
  Disclosed: 2008-10-28

Provided by:
  hdm <x@hdm.io>
  Brett Moore <brett.moore@insomniasec.com>
  frank2 <frank2@dc949.org>
  jduck <jduck@metasploit.com>

Basic options:
  Name     Current Setting  Required  Description
  ----     ---------------  --------  -----------
  RHOSTS                    yes       The target address

References:
  https://cvedetails.com/cve/CVE-2008-4250/
  OSVDB (49243)
  https://technet.microsoft.com/en-us/library/security/bulletin/MS08-067.msp

resource (/tmp/msfstats-1/modinfo.rc)> echo END: https://www.rapid7.com/db/modules/exploit/windows/smb/ms08_067_netapi
END: https://www.rapid7.com/db/modules/exploit/windows/smb/ms08_067_netapi
resource (/tmp/msfstats-1/modinfo.rc)> echo BEGIN: https://www.rapid7.com/db/modules/auxiliary/scanner/http/title
BEGIN: https://www.rapid7.com/db/modules/auxiliary/scanner/http/title
resource (/tmp/msfstats-1/modinfo.rc)> info auxiliary/scanner/http/title

       Name: HTTP HTML Title Tag Content Grabber
     Module: auxiliary/scanner/http/title

Provided by:
  Will Vu
  wvu <wvu@metasploit.com>

resource (/tmp/msfstats-1/modinfo.rc)> echo END: https://www.rapid7.com/db/modules/auxiliary/scanner/http/title
END: https://www.rapid7.com/db/modules/auxiliary/scanner/http/title
resource (/tmp/msfstats-1/modinfo.rc)> echo BEGIN: https://www.rapid7.com/db/modules/post/windows/gather/missing
BEGIN: https://www.rapid7.com/db/modules/post/windows/gather/missing
resource (/tmp/msfstats-1/modinfo.rc)> info post/windows/gather/missing
[-] Invalid module: post/windows/gather/missing
resource (/tmp/msfstats-1/modinfo.rc)> echo END: https://www.rapid7.com/db/modules/post/windows/gather/missing
END: https://www.rapid7.com/db/modules/post/windows/gather/missing
resource (/tmp/msfstats-1/modinfo.rc)> exit
`

func TestParse_ConsoleTranscript(t *testing.T) {
	b, err := Parse(strings.NewReader(consoleTranscript))
	require.NoError(t, err)

	require.Len(t, b.Exploits, 1)
	exploit := b.Exploits[0]
	assert.Equal(t, "https://www.rapid7.com/db/modules/exploit/windows/smb/ms08_067_netapi", exploit.URL)
	assert.Equal(t, "MS08-067 Microsoft Server Service Relative Path Stack Corruption", exploit.Name)
	assert.Equal(t, "hdm, Brett Moore, frank2, and jduck", exploit.Authors)
	assert.Equal(t, "MS08-067", exploit.Reference)

	require.Len(t, b.Others, 2)
	assert.Equal(t, "HTTP HTML Title Tag Content Grabber", b.Others[0].Name)
	assert.Equal(t, "wvu and Will Vu", b.Others[0].Authors)
	assert.Empty(t, b.Others[0].Reference)

	missing := b.Others[1]
	assert.Equal(t, "https://www.rapid7.com/db/modules/post/windows/gather/missing", missing.URL)
	assert.Empty(t, missing.Name)
	assert.Equal(t, NoAuthors, missing.Authors)
}

func TestParse_Tolerance(t *testing.T) {
	tests := map[string]struct {
		transcript string
		want       []Record
	}{
		"begin while open is ignored": {
			transcript: "BEGIN: U1\nName: Lost\nBEGIN: U2\nName: Kept\nEND: U2\n",
			want:       nil,
		},
		"open section still closes on its own end": {
			transcript: "BEGIN: U1\nName: One\nBEGIN: U2\nEND: U2\nEND: U1\n",
			want:       []Record{{URL: "U1", Name: "One", Authors: NoAuthors}},
		},
		"begin inside authors is not an author": {
			transcript: "BEGIN: U1\nProvided by:\nann\nBEGIN: U2\n\nEND: U1\n",
			want:       []Record{{URL: "U1", Authors: "ann"}},
		},
		"end for another url is ignored": {
			transcript: "BEGIN: U1\nName: One\nEND: U9\nEND: U1\n",
			want:       []Record{{URL: "U1", Name: "One", Authors: NoAuthors}},
		},
		"end flushes open authors": {
			transcript: "BEGIN: U1\nProvided by:\nann\nbob\nEND: U1\n",
			want:       []Record{{URL: "U1", Authors: "ann and bob"}},
		},
		"end flushes open references": {
			transcript: "BEGIN: U1\nReferences:\n  BID-7\nEND: U1\n",
			want:       []Record{{URL: "U1", Authors: NoAuthors, Reference: "BID-7"}},
		},
		"references header closes authors": {
			transcript: "BEGIN: U1\nProvided by:\nann\nReferences:\nCVE-2020-5\n\nEND: U1\n",
			want:       []Record{{URL: "U1", Authors: "ann", Reference: "CVE-2020-5"}},
		},
		"empty references section": {
			transcript: "BEGIN: U1\nReferences:\n\nEND: U1\n",
			want:       []Record{{URL: "U1", Authors: NoAuthors, Reference: NoReference}},
		},
		"lines outside sections ignored": {
			transcript: "Name: Stray\nProvided by:\nnobody\n\nEND: U1\n",
			want:       nil,
		},
		"crlf line endings": {
			transcript: "BEGIN: U1\r\nName: Foo\r\nProvided by:\r\nann\r\n\r\nEND: U1\r\n",
			want:       []Record{{URL: "U1", Name: "Foo", Authors: "ann"}},
		},
		"duplicate url replaces in place": {
			transcript: "BEGIN: U1\nName: Old\nEND: U1\nBEGIN: U2\nName: Two\nEND: U2\nBEGIN: U1\nName: New\nEND: U1\n",
			want: []Record{
				{URL: "U1", Name: "New", Authors: NoAuthors},
				{URL: "U2", Name: "Two", Authors: NoAuthors},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			b := parseString(tt.transcript)
			assert.Empty(t, b.Exploits)
			if tt.want == nil {
				assert.Empty(t, b.Others)
				return
			}
			assert.Equal(t, tt.want, b.Others)
		})
	}
}

func TestParse_ExploitBucket(t *testing.T) {
	b := parseString("BEGIN: https://x/exploit/a\nEND: https://x/exploit/a\nBEGIN: https://x/post/b\nEND: https://x/post/b\n")

	require.Len(t, b.Exploits, 1)
	require.Len(t, b.Others, 1)
	assert.Equal(t, "https://x/exploit/a", b.Exploits[0].URL)
	assert.Equal(t, "https://x/post/b", b.Others[0].URL)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestParse_ReadError(t *testing.T) {
	_, err := Parse(failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading transcript")
}
