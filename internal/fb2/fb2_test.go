package fb2

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<?xml version="1.0" encoding="utf-8"?>
<FictionBook xmlns="http://www.gribuser.ru/xml/fictionbook/2.0">
  <description>
    <title-info>
      <book-title>Дорога домой</book-title>
      <author>
        <first-name>Виталий</first-name>
        <last-name>Зыков</last-name>
      </author>
      <annotation>
        <p>Первый том цикла.</p>
        <p>Продолжение следует.</p>
      </annotation>
    </title-info>
  </description>
  <body>
    <section>
      <title><p>Глава 1</p></title>
      <p>Первый абзац.</p>
      <p>Второй абзац.</p>
    </section>
    <section>
      <title><p>Часть вторая</p></title>
      <section>
        <title><p>Глава 2</p></title>
        <p>Вложенный текст.</p>
      </section>
    </section>
  </body>
  <body name="notes">
    <section><p>Сноска, не для чтения.</p></section>
  </body>
</FictionBook>`

func TestParse(t *testing.T) {
	b, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "Дорога домой", b.Title)
	assert.Equal(t, "Виталий Зыков", b.Author)
	assert.Equal(t, "Первый том цикла. Продолжение следует.", b.Annotation)

	// nested section flattened, notes body skipped
	require.Len(t, b.Sections, 2)
	assert.Equal(t, "Глава 1", b.Sections[0].Title)
	assert.Equal(t, []string{"Первый абзац.", "Второй абзац."}, b.Sections[0].Paragraphs)
	assert.Equal(t, "Глава 2", b.Sections[1].Title)
}

func TestParseMissingTitleFails(t *testing.T) {
	_, err := Parse(strings.NewReader(`<?xml version="1.0"?>
		<FictionBook><description><title-info></title-info></description></FictionBook>`))
	assert.Error(t, err)
}

func TestParseDeclaredLegacyCharset(t *testing.T) {
	// ascii content under a windows-1251 label must still parse
	doc := strings.Replace(sample, `encoding="utf-8"`, `encoding="windows-1251"`, 1)
	b, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Дорога домой", b.Title)
}

func TestParseGarbageFails(t *testing.T) {
	_, err := Parse(strings.NewReader("not xml at all"))
	assert.Error(t, err)
}
