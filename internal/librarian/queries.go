package librarian

// GraphQL documents for the Librarian server API. Field selections stay in
// sync with the wire types in dto.go.

const queryLibraries = `query Libraries {
  libraries {
    id
    name
    type
    path
    itemCount
    updatedAt
  }
}`

const queryRecentSeries = `query RecentSeries($libraryId: ID!, $limit: Int!) {
  series(libraryId: $libraryId, sort: ADDED_DESC, limit: $limit) {
    id
    libraryId
    title
    sortTitle
    year
    network
    status
    episodeCount
    downloadedCount
    addedAt
  }
}`

const scheduleEntryFields = `
    seriesId
    seriesTitle
    episodeTitle
    seasonNumber
    episodeNumber
    airsAt
    network
    libraryId
    downloaded
`

const queryUpcoming = `query Upcoming($days: Int!) {
  upcoming(days: $days) {` + scheduleEntryFields + `}
}`

const queryCalendar = `query Calendar($libraryIds: [ID!]!, $days: Int!) {
  calendar(libraryIds: $libraryIds, days: $days) {` + scheduleEntryFields + `}
}`

const queryQueue = `query Queue {
  queue {
    id
    title
    category
    protocol
    status
    size
    sizeLeft
    client
    etaSeconds
    addedAt
  }
}`

const querySearch = `query Search($query: String!) {
  search(query: $query) {
    id
    title
    type
    libraryId
    year
  }
}`

const querySystemStatus = `query SystemStatus {
  systemStatus {
    appName
    version
    startedAt
  }
}`

const mutationLogin = `mutation Login($username: String!, $password: String!) {
  login(username: $username, password: $password) {
    token
    user {
      id
      username
    }
  }
}`
